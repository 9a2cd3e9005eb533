//go:build debug_boot_mem

package memutils

// DebugValidate calls Validate on the provided object and panics on error. Without the
// debug_boot_mem build tag it does nothing.
func DebugValidate(validatable Validatable) {
	if err := validatable.Validate(); err != nil {
		panic(err)
	}
}
