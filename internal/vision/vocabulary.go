package vision

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var categoriesYAML []byte

var vocabulary = func() []string {
	var doc struct {
		Categories []string `yaml:"categories"`
	}
	if err := yaml.Unmarshal(categoriesYAML, &doc); err != nil {
		panic(fmt.Sprintf("vision: bad embedded vocabulary: %v", err))
	}
	return doc.Categories
}()

var vocabularySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(vocabulary))
	for _, label := range vocabulary {
		set[label] = struct{}{}
	}
	return set
}()

// Vocabulary returns the controlled list of category labels the
// identification step may choose from.
func Vocabulary() []string {
	out := make([]string, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// filterVocabulary drops any label the model invented outside the
// controlled list.
func filterVocabulary(labels []string) []string {
	var out []string
	for _, label := range labels {
		if _, ok := vocabularySet[label]; ok {
			out = append(out, label)
		}
	}
	return out
}
