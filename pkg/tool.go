package pkg

// Contains check source have target
func Contains(slice []string, val string) bool {
	for _, v := range slice {
		if v == val {
			return true
		}
	}
	return false
}

// AppendIfMissing append val when slice not have it
func AppendIfMissing(slice []string, val string) []string {
	if Contains(slice, val) {
		return slice
	}
	return append(slice, val)
}

// Other return the element of pair that is not val
func Other(pair []string, val string) string {
	for _, v := range pair {
		if v != val {
			return v
		}
	}
	return ""
}
