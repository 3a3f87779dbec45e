package symbols

import "strings"

const (
	getterPrefix      = "get:"
	setterPrefix      = "set:"
	initializerPrefix = "init:"
)

// GetterName mangles the name of a getter function.
func GetterName(name string) string { return getterPrefix + name }

// SetterName mangles the name of a setter function.
func SetterName(name string) string { return setterPrefix + name }

// InitializerName mangles the name of a static field initializer function.
func InitializerName(name string) string { return initializerPrefix + name }

// ConstructorName mangles a constructor name: "Point." for the unnamed
// constructor, "Point.origin" for a named one.
func ConstructorName(class, name string) string { return class + "." + name }

// FactoryName mangles a factory name. Factories share the constructor namespace.
func FactoryName(class, name string) string { return ConstructorName(class, name) }

// IsGetterName reports whether name carries the getter prefix.
func IsGetterName(name string) bool { return strings.HasPrefix(name, getterPrefix) }

// IsSetterName reports whether name carries the setter prefix.
func IsSetterName(name string) bool { return strings.HasPrefix(name, setterPrefix) }

// Unmangle strips any accessor prefix.
func Unmangle(name string) string {
	for _, prefix := range []string{getterPrefix, setterPrefix, initializerPrefix} {
		if strings.HasPrefix(name, prefix) {
			return name[len(prefix):]
		}
	}
	return name
}
