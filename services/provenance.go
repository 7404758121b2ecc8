package services

import (
	"strings"

	"github.com/dsoprea/go-exif/v3"
)

// ProvenanceHint is an advisory finding from the upload's own metadata,
// reported alongside the provider verdict as debug context. It never
// influences the score or label.
type ProvenanceHint struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// ScanProvenance checks the upload's EXIF data against the configured
// generator signatures (IPTC trained-media source type, Software tags
// naming known generators). Best effort: images without EXIF, or with
// EXIF the parser rejects, simply yield no hint.
func ScanProvenance(data []byte, signatures []ProvenanceSignature) (ProvenanceHint, bool) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return ProvenanceHint{}, false
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return ProvenanceHint{}, false
	}

	for _, entry := range entries {
		for _, sig := range signatures {
			if entry.TagName != sig.Key {
				continue
			}
			if len(sig.Contains) > 0 {
				for _, substr := range sig.Contains {
					if strings.Contains(entry.Formatted, substr) {
						return ProvenanceHint{Tag: entry.TagName, Value: entry.Formatted}, true
					}
				}
			} else if entry.Formatted == sig.Value {
				return ProvenanceHint{Tag: entry.TagName, Value: entry.Formatted}, true
			}
		}
	}
	return ProvenanceHint{}, false
}
