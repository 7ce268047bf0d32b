package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

/* =======================================================================
   Backend Aliyun OSS (primary)
======================================================================= */

type OSSBackend struct {
	Client     *oss.Client
	Bucket     *oss.Bucket
	Endpoint   string
	BucketName string
	Prefix     string // optional: "uploads/"
}

func NewOSSBackendFromEnv(prefix string) (*OSSBackend, error) {
	endpoint := getEnv("ALI_OSS_ENDPOINT")
	ak := getEnv("ALI_OSS_ACCESS_KEY")
	sk := getEnv("ALI_OSS_SECRET_KEY")
	sts := getEnv("ALI_OSS_SECURITY_TOKEN")
	bucketName := getEnv("ALI_OSS_BUCKET")
	if endpoint == "" || ak == "" || sk == "" || bucketName == "" {
		return nil, fmt.Errorf("missing env: ALI_OSS_ENDPOINT/ACCESS_KEY/SECRET_KEY/BUCKET")
	}

	var (
		client *oss.Client
		err    error
	)
	if sts != "" {
		client, err = oss.New(endpoint, ak, sk, oss.SecurityToken(sts))
	} else {
		client, err = oss.New(endpoint, ak, sk)
	}
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}

	bkt, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	// Verifikasi ringan lokasi bucket
	if loc, err := client.GetBucketLocation(bucketName); err != nil {
		if se, ok := err.(oss.ServiceError); ok && se.StatusCode == 403 && se.Code == "AccessDenied" {
			log.Printf("[OSS] warn: skip location check due to AccessDenied (bucket=%s). Continuing.", bucketName)
		} else {
			return nil, fmt.Errorf("verify bucket: %w", err)
		}
	} else {
		log.Printf("[OSS] bucket %s location: %s", bucketName, loc)
	}

	return &OSSBackend{
		Client:     client,
		Bucket:     bkt,
		Endpoint:   endpoint,
		BucketName: bucketName,
		Prefix:     strings.Trim(prefix, "/"),
	}, nil
}

func (s *OSSBackend) Tag() BackendTag { return BackendOSS }

func (s *OSSBackend) Put(ctx context.Context, key string, data []byte, opt PutOptions) (ImageReference, error) {
	if key == "" {
		return ImageReference{}, fmt.Errorf("empty key")
	}
	if s.Prefix != "" && !strings.HasPrefix(key, s.Prefix+"/") {
		key = s.Prefix + "/" + key
	}

	ct := opt.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(ct),
	}
	if opt.Inline {
		opts = append(opts, oss.ContentDisposition("inline"))
	}
	if opt.CacheForever {
		opts = append(opts, oss.CacheControl("public, max-age=31536000, immutable"))
	}
	if opt.ACL != "" {
		opts = append(opts, oss.ObjectACL(oss.ACLType(opt.ACL)))
	}

	if err := s.Bucket.PutObject(key, bytes.NewReader(data), opts...); err != nil {
		return ImageReference{}, wrapOSSError(err)
	}
	return ImageReference{Backend: BackendOSS, Key: key, URL: s.PublicURL(key)}, nil
}

func (s *OSSBackend) Get(ctx context.Context, key string) ([]byte, string, error) {
	if key == "" {
		return nil, "", ErrImageNotFound
	}
	body, err := s.Bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		if isOSSNotFound(err) {
			return nil, "", ErrImageNotFound
		}
		return nil, "", wrapOSSError(err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", key, err)
	}

	ct := ""
	if meta, err := s.Bucket.GetObjectDetailedMeta(key, oss.WithContext(ctx)); err == nil {
		ct = meta.Get("Content-Type")
	}
	if ct == "" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(key)))
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return data, ct, nil
}

func (s *OSSBackend) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.Bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		if isOSSNotFound(err) {
			return nil
		}
		return wrapOSSError(err)
	}
	return nil
}

/* =======================================================================
   Public URL & key utils
======================================================================= */

func (s *OSSBackend) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	if base := ossPublicBase(); base != "" {
		return strings.TrimRight(base, "/") + "/" + key
	}
	if s.Endpoint == "" || s.BucketName == "" {
		return ""
	}
	end := s.Endpoint
	end = strings.TrimPrefix(end, "https://")
	end = strings.TrimPrefix(end, "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.BucketName, end, key)
}

// ExtractKeyFromPublicURL: ambil object key dari public URL maupun bare key.
func ExtractKeyFromPublicURL(publicURL string) (string, error) {
	if publicURL == "" {
		return "", fmt.Errorf("empty url")
	}
	if base := ossPublicBase(); base != "" {
		base = strings.TrimRight(base, "/") + "/"
		if strings.HasPrefix(publicURL, base) {
			return strings.TrimPrefix(publicURL, base), nil
		}
	}
	if !strings.Contains(publicURL, "://") {
		// sudah berupa key
		return publicURL, nil
	}
	u := publicURL
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if i := strings.Index(u, "/"); i >= 0 && i+1 < len(u) {
		return u[i+1:], nil
	}
	return "", fmt.Errorf("cannot extract key from url: %s", publicURL)
}

func ossPublicBase() string {
	return strings.TrimSpace(os.Getenv("ALI_OSS_PUBLIC_BASE"))
}

/* =======================================================================
   Error mapping (jangan bocorkan oss.ServiceError ke atas)
======================================================================= */

func wrapOSSError(err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(oss.ServiceError); ok {
		switch {
		case se.StatusCode == 403,
			se.Code == "AccessDenied",
			se.Code == "AccessControlListNotSupported":
			return fmt.Errorf("%w: oss %s", errPermissionDenied, se.Code)
		case se.StatusCode == 404:
			return ErrImageNotFound
		}
	}
	return fmt.Errorf("%w: oss: %v", ErrStorageUnavailable, err)
}

func isOSSNotFound(err error) bool {
	if se, ok := err.(oss.ServiceError); ok {
		return se.StatusCode == 404
	}
	return false
}

func getEnv(k string) string { return strings.TrimSpace(os.Getenv(k)) }
