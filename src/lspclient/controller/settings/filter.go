package settings

import (
	"reflect"
	"sort"
	"strings"
)

// Filter keeps the settings that belong to sections and groups them per section.
// A top-level key "<section>.<rest>" becomes key "<rest>" of the object named after the section;
// a top-level object named exactly like a section is merged into it. Prefixes match case-insensitively.
// defaults are grouped the same way and merged beneath the user settings.
// It returns nil when sections is empty, or when nothing matched and defaults is nil.
func Filter(sections []string, user, defaults map[string]interface{}) map[string]interface{} {
	if len(sections) == 0 {
		return nil
	}

	// The longest section wins when sections nest, e.g. "yaml" and "yaml.format".
	ordered := append([]string(nil), sections...)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	result := Merge(group(ordered, defaults), group(ordered, user))
	if len(result) == 0 && defaults == nil {
		return nil
	}
	return result
}

func group(sections []string, doc map[string]interface{}) map[string]interface{} {
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	// A whole-section object sorts before its dotted keys, so the dotted keys win.
	sort.Strings(keys)

	grouped := make(map[string]interface{})
	for _, key := range keys {
		value := doc[key]
		section, rest, ok := match(sections, key)
		if !ok {
			continue
		}

		target, _ := grouped[section].(map[string]interface{})
		if target == nil {
			target = make(map[string]interface{})
		}

		if rest == "" {
			nested, isMap := value.(map[string]interface{})
			if !isMap {
				continue
			}
			grouped[section] = Merge(target, nested)
			continue
		}
		target[rest] = value
		grouped[section] = target
	}
	return grouped
}

func match(sections []string, key string) (section string, rest string, ok bool) {
	for _, s := range sections {
		if strings.EqualFold(key, s) {
			return s, "", true
		}
		prefix := s + "."
		if len(key) > len(prefix) && strings.EqualFold(key[:len(prefix)], prefix) {
			return s, key[len(prefix):], true
		}
	}
	return "", "", false
}

// Merge returns base overlaid with override. Objects merge recursively, arrays are unioned
// with base elements first, and any other override value replaces the base value.
// Neither input is modified.
func Merge(base, override map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		existing, ok := result[k]
		if !ok {
			result[k] = v
			continue
		}

		switch ov := v.(type) {
		case map[string]interface{}:
			if bv, isMap := existing.(map[string]interface{}); isMap {
				result[k] = Merge(bv, ov)
				continue
			}
		case []interface{}:
			if bv, isSlice := existing.([]interface{}); isSlice {
				result[k] = union(bv, ov)
				continue
			}
		}
		result[k] = v
	}
	return result
}

func union(base, extra []interface{}) []interface{} {
	result := append([]interface{}(nil), base...)
	for _, item := range extra {
		found := false
		for _, existing := range result {
			if reflect.DeepEqual(existing, item) {
				found = true
				break
			}
		}
		if !found {
			result = append(result, item)
		}
	}
	return result
}

// Lookup returns the value of a dotted section within a grouped settings document, or nil if absent.
// An empty section returns the whole document.
func Lookup(doc map[string]interface{}, section string) interface{} {
	if doc == nil {
		return nil
	}
	if section == "" {
		return doc
	}

	var current interface{} = doc
	for _, part := range strings.Split(section, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		if current, ok = m[part]; !ok {
			return nil
		}
	}
	return current
}
