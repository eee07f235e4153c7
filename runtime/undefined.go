package runtime

// Undefined is the value of a name missing from the context when strict
// undefined mode is off. It renders as the empty string and lets filters
// such as default detect the missing value.
type Undefined struct {
	Name string
}

func (u Undefined) String() string {
	return ""
}

func isUndefinedValue(value interface{}) bool {
	_, ok := value.(Undefined)
	return ok
}
