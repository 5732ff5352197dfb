package domain

import "fmt"

// Tag categorizes a project.
type Tag string

var knownTags = map[Tag]struct{}{
	"web": {}, "mobile": {}, "desktop": {}, "backend": {}, "frontend": {}, "fullstack": {},
	"ai": {}, "game": {}, "crypto": {}, "nft": {}, "social": {}, "other": {}, "dapp": {},
	"saas": {}, "algorithm": {}, "data-analysis": {}, "game-engine": {},
}

func ParseTag(s string) (Tag, error) {
	if _, ok := knownTags[Tag(s)]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTag, s)
	}
	return Tag(s), nil
}
