package models

// ProgressEvent is one line of the book-creation progress stream.
type ProgressEvent struct {
	Progress int    `json:"progress"`
	Status   string `json:"status"`
	Redirect string `json:"redirect,omitempty"`
}

// Terminal reports whether no further events follow this one.
func (e ProgressEvent) Terminal() bool {
	return e.Progress >= 100
}
