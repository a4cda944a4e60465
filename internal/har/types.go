package har

// HAR is the root of an HTTP Archive document. Only the parts needed to
// rebuild requests are decoded.
type HAR struct {
	Log *Log `json:"log"`
}

// Log holds the recorded entries.
type Log struct {
	Version string   `json:"version"`
	Creator *Creator `json:"creator"`
	Entries []*Entry `json:"entries"`
}

// Creator names the tool that wrote the archive.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Entry is one recorded request/response exchange.
type Entry struct {
	StartedDateTime string    `json:"startedDateTime"`
	Request         *Request  `json:"request"`
	Response        *Response `json:"response"`
}

// Request is the recorded request.
type Request struct {
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	HTTPVersion string    `json:"httpVersion"`
	Headers     []*Header `json:"headers"`
	PostData    *PostData `json:"postData,omitempty"`
}

// Response is the recorded response.
type Response struct {
	Status     int       `json:"status"`
	StatusText string    `json:"statusText"`
	Headers    []*Header `json:"headers"`
	Content    *Content  `json:"content"`
}

// Header is a name/value pair.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PostData describes a request body.
type PostData struct {
	MimeType string       `json:"mimeType"`
	Params   []*PostParam `json:"params,omitempty"`
	Text     string       `json:"text,omitempty"`
}

// PostParam is one decoded form field.
type PostParam struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// Content describes the response body.
type Content struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
}
