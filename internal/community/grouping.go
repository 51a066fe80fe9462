package community

import "strings"

// GroupByTopDirectory partitions files by the first segment of their
// directory. Files without a directory land in the "" community.
func GroupByTopDirectory(files []string) *Partition {
	p := New()
	for _, f := range files {
		// a file listed twice stays in the same community, so Add cannot fail
		_ = p.Add(topDirectory(f), f)
	}
	return p
}

func topDirectory(file string) string {
	i := strings.LastIndexByte(file, '/')
	if i < 0 {
		return ""
	}
	dir := file[:i]
	if j := strings.IndexByte(dir, '/'); j >= 0 {
		return dir[:j]
	}
	return dir
}
