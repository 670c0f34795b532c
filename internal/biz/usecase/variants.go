package usecase

import "strings"

var (
	variantExts = []string{".jpg", ".png"}

	oriSuffixes     = []string{"_720", "_0", "_200", "_480", ""}
	thumbSuffixes   = []string{"_720", "_0", "_200", ""}
	genericSuffixes = []string{"_720", "_0"}
)

// GeneratePathVariants returns the candidate on-disk locations of a media
// file, most likely first. Files saved under an "Ori" directory are often
// only materialized as resolution-suffixed thumbnails in the sibling
// "Thumb" directory, with either extension.
//
// The original path is always the last candidate. Paths without a
// separator or an extension yield just the original.
func GeneratePathVariants(originalPath string) []string {
	if originalPath == "" {
		return nil
	}

	sep := "/"
	if strings.Contains(originalPath, `\`) {
		sep = `\`
	}

	idx := strings.LastIndex(originalPath, sep)
	if idx < 0 {
		return []string{originalPath}
	}
	dir, name := originalPath[:idx], originalPath[idx+1:]

	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return []string{originalPath}
	}
	base := name[:dot]

	var candidates []string
	emit := func(targetDir string, suffixes []string) {
		for _, suffix := range suffixes {
			for _, ext := range variantExts {
				candidates = append(candidates, targetDir+sep+base+suffix+ext)
			}
		}
	}

	oriSeg := sep + "Ori"
	thumbSeg := sep + "Thumb"
	switch {
	case strings.Contains(dir, oriSeg):
		i := strings.LastIndex(dir, oriSeg)
		emit(dir[:i]+thumbSeg+dir[i+len(oriSeg):], oriSuffixes)
	case strings.Contains(dir, thumbSeg):
		emit(dir, thumbSuffixes)
	default:
		emit(dir, genericSuffixes)
	}
	candidates = append(candidates, originalPath)

	return dedupe(candidates)
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
