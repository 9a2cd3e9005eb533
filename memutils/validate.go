package memutils

// Validatable is anything DebugValidate can check, such as a memory map
type Validatable interface {
	Validate() error
}
