package har

// ConvertOptions selects which HAR entries become profiles.
type ConvertOptions struct {
	// IncludeHosts specifies which hosts to include (empty = all hosts)
	IncludeHosts []string
	// ExcludeHosts specifies which hosts to exclude
	ExcludeHosts []string
	// IncludeMethods specifies which HTTP methods to include (empty = all methods)
	IncludeMethods []string
	// ExcludeStatic drops static assets (.js, .css, images, fonts)
	ExcludeStatic bool
	// JSONOnly keeps entries whose recorded response was JSON
	JSONOnly bool
	// IncludeHeaders copies request headers into the profiles
	IncludeHeaders bool
}

// DefaultOptions returns ConvertOptions with sensible defaults.
func DefaultOptions() ConvertOptions {
	return ConvertOptions{
		ExcludeStatic:  true,
		JSONOnly:       true,
		IncludeHeaders: true,
	}
}
