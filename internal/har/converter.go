// Package har turns recorded browser traffic (HTTP Archive files) into
// request profiles.
package har

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/torosent/poi/internal/jsonobj"
	"github.com/torosent/poi/internal/request"
)

// Profile is a request profile recovered from one HAR entry.
type Profile struct {
	Name    string
	Request *request.Profile
}

// Result lists converted profiles in capture order, plus a reason for every
// selected entry that could not be expressed as a profile.
type Result struct {
	Profiles []Profile
	Skipped  []string
}

// Convert transforms the selected HAR entries into request profiles. Profile
// names come from the last URL path segment and are made unique.
func Convert(har *HAR, opts ConvertOptions) (Result, error) {
	if har == nil || har.Log == nil {
		return Result{}, fmt.Errorf("HAR is nil or has nil log")
	}

	var result Result
	used := make(map[string]bool)
	for _, entry := range har.Log.Entries {
		if !shouldIncludeEntry(entry, opts) {
			continue
		}

		profile, err := entryToProfile(entry, opts)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s %s: %v", entry.Request.Method, entry.Request.URL, err))
			continue
		}
		result.Profiles = append(result.Profiles, Profile{
			Name:    uniqueName(profileName(profile.URL), used),
			Request: profile,
		})
	}

	return result, nil
}

// shouldIncludeEntry determines whether a HAR entry should be included in the conversion
// based on the provided filtering options.
func shouldIncludeEntry(entry *Entry, opts ConvertOptions) bool {
	if entry == nil || entry.Request == nil {
		return false
	}

	req := entry.Request
	parsedURL, err := url.Parse(req.URL)
	if err != nil {
		return false
	}

	if len(opts.IncludeHosts) > 0 && !containsFold(opts.IncludeHosts, parsedURL.Host) {
		return false
	}
	if containsFold(opts.ExcludeHosts, parsedURL.Host) {
		return false
	}
	if len(opts.IncludeMethods) > 0 && !containsFold(opts.IncludeMethods, req.Method) {
		return false
	}

	if opts.ExcludeStatic && isStaticAsset(parsedURL.Path) {
		return false
	}
	if opts.JSONOnly && !hasJSONResponse(entry) {
		return false
	}

	return true
}

func entryToProfile(entry *Entry, opts ConvertOptions) (*request.Profile, error) {
	req := entry.Request

	base, err := request.FromURL(req.URL)
	if err != nil {
		return nil, err
	}

	var headers map[string]string
	if opts.IncludeHeaders {
		headers = extractHeaders(req.Headers)
	}

	var body *jsonobj.Object
	if req.PostData != nil {
		if headers == nil {
			headers = make(map[string]string)
		}
		if req.PostData.MimeType != "" {
			headers["Content-Type"] = req.PostData.MimeType
		}
		body, err = postBody(req.PostData)
		if err != nil {
			return nil, err
		}
	}

	return request.New(req.Method, base.URL.String(), base.Params, headers, body)
}

// postBody decodes recorded request data into a body template.
func postBody(data *PostData) (*jsonobj.Object, error) {
	mimeType := data.MimeType
	if mimeType == "" {
		mimeType = request.DefaultContentType
	}
	contentType, err := request.ParseContentType(mimeType)
	if err != nil {
		return nil, err
	}

	switch contentType {
	case request.ContentForm:
		body := jsonobj.New()
		if len(data.Params) > 0 {
			for _, param := range data.Params {
				if param != nil {
					body.SetString(param.Name, param.Value)
				}
			}
			return body, nil
		}
		for _, part := range strings.Split(data.Text, "&") {
			if part == "" {
				continue
			}
			key, value, _ := strings.Cut(part, "=")
			k, err := url.QueryUnescape(key)
			if err != nil {
				return nil, fmt.Errorf("form field: %w", err)
			}
			v, err := url.QueryUnescape(value)
			if err != nil {
				return nil, fmt.Errorf("form field %q: %w", k, err)
			}
			body.SetString(k, v)
		}
		return body, nil
	default:
		if strings.TrimSpace(data.Text) == "" {
			return nil, nil
		}
		return jsonobj.Parse([]byte(data.Text))
	}
}

func hasJSONResponse(entry *Entry) bool {
	if entry.Response == nil || entry.Response.Content == nil {
		return false
	}
	return strings.Contains(strings.ToLower(entry.Response.Content.MimeType), "json")
}

// isStaticAsset checks whether a URL path points to a static asset
// based on file extensions.
func isStaticAsset(path string) bool {
	lowerPath := strings.ToLower(path)

	staticExtensions := []string{
		".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".svg",
		".woff", ".woff2", ".ttf", ".eot", ".ico", ".map",
	}

	for _, ext := range staticExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}

	return false
}

// extractHeaders copies request headers, dropping hop-by-hop headers and
// those the HTTP client computes itself.
func extractHeaders(headers []*Header) map[string]string {
	result := make(map[string]string)

	skipped := map[string]bool{
		"connection":          true,
		"keep-alive":          true,
		"proxy-authenticate":  true,
		"proxy-authorization": true,
		"te":                  true,
		"trailers":            true,
		"transfer-encoding":   true,
		"upgrade":             true,
		"host":                true,
		"content-length":      true,
		"accept-encoding":     true,
	}

	for _, header := range headers {
		if header == nil {
			continue
		}

		lowerName := strings.ToLower(header.Name)
		// HTTP/2 pseudo-headers such as :authority
		if strings.HasPrefix(lowerName, ":") || skipped[lowerName] {
			continue
		}

		result[header.Name] = header.Value
	}

	return result
}

// profileName derives a YAML-friendly name from the last path segment,
// falling back to the host.
func profileName(u *url.URL) string {
	segment := u.Hostname()
	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			segment = part
		}
	}

	var b strings.Builder
	for _, r := range strings.ToLower(segment) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "request"
	}
	return name
}

func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[candidate]; n++ {
		candidate = name + "_" + strconv.Itoa(n)
	}
	used[candidate] = true
	return candidate
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
