package dedupe

// Dedupe удаляет дубликаты по ключу, первый встреченный элемент побеждает.
// Порядок сохраняется. Элементы с пустым ключом не сравниваются между собой и всегда остаются.
func Dedupe[T any](items []T, key func(T) string) []T {
	if len(items) == 0 {
		return items
	}

	seen := make(map[string]struct{}, len(items))
	result := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if k == "" {
			result = append(result, item)
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, item)
	}
	return result
}

// Strings - Dedupe для списка строк
func Strings(items []string) []string {
	return Dedupe(items, func(s string) string { return s })
}
