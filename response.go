package pagecheck

// Response describes the HTTP response for a page's main document
// navigation, captured from Network.responseReceived during Goto.
type Response struct {
	StatusCode int
	StatusText string
	URL        string
	MimeType   string
}

// Ok reports whether the status code is in the 2xx range.
func (r *Response) Ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
