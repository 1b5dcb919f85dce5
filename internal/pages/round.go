package pages

// RoundUp rounds n up to a whole number of pages.
func RoundUp(n int) int {
	ps := Size()
	return (n + ps - 1) / ps * ps
}
