package models

// PresignImageRequest asks for an upload URL for one image
type PresignImageRequest struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,max=120"`
}

// PresignImageResponse carries the presigned upload target and where the object will be served from
type PresignImageResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
}

// ViewEvent is one page view reported by the website
type ViewEvent struct {
	Page   string `json:"page"`
	Source string `json:"source"`
}

// WithDefaults fills the page and source the website omits
func (e ViewEvent) WithDefaults() ViewEvent {
	if e.Page == "" {
		e.Page = "/"
	}
	if e.Source == "" {
		e.Source = "website"
	}
	return e
}

// ViewResult reports whether a view was published
type ViewResult struct {
	Accepted bool `json:"accepted"`
}
