package facerec

// Candidate: hasil terbaik SearchFace di atas threshold.
type Candidate struct {
	FaceID     string  `json:"face_id"`
	ExternalID string  `json:"external_id,omitempty"`
	Similarity float64 `json:"similarity"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ImagePointer: satu sisi perbandingan — URL publik (service fetch sendiri)
// atau bytes inline. Isi salah satu saja.
type ImagePointer struct {
	URL   string
	Bytes []byte
}

// CompareResult: skor similarity + keputusan match terhadap threshold.
type CompareResult struct {
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
	Matched    bool    `json:"matched"`
}

// IndexResult: hasil enrollment wajah.
type IndexResult struct {
	FaceID     string  `json:"face_id"`
	Confidence float64 `json:"confidence"`
}
