package utils

import "cmp"

func FindIndex[T comparable](slice []T, item T) int {
	for i, v := range slice {
		if v == item {
			return i
		}
	}
	return -1
}

func Contains[T comparable](slice []T, item T) bool {
	return FindIndex(slice, item) >= 0
}

// ArgMax returns the index of the first maximum element, or -1 for an empty slice.
func ArgMax[T cmp.Ordered](slice []T) int {
	maxIndex := -1
	for i, v := range slice {
		if maxIndex < 0 || v > slice[maxIndex] {
			maxIndex = i
		}
	}
	return maxIndex
}
