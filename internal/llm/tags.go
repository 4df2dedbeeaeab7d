package llm

import (
	"strings"

	"github.com/samber/lo"
)

// MaxTags caps the number of tags attached to an analysis.
const MaxTags = 5

// tagVocabulary is the closed set of category tags. Matches are returned in
// this order, not in order of appearance in the text.
var tagVocabulary = []string{
	"电子产品", "家具", "服装", "食品", "交通工具",
	"建筑", "植物", "动物", "工具", "运动器材",
}

// ExtractTags returns up to MaxTags vocabulary terms found in text.
func ExtractTags(text string) []string {
	found := lo.Filter(tagVocabulary, func(tag string, _ int) bool {
		return strings.Contains(text, tag)
	})
	if len(found) > MaxTags {
		found = found[:MaxTags]
	}
	return found
}
