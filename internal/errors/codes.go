package errors

// Error codes for the dil toolchain.
//
// Error code ranges:
// E0100-E0199: Reader (textual source IR) errors
// E0200-E0299: Symbol resolution errors
// E0300-E0399: Constant evaluation errors
// E0400-E0499: Graph construction errors
// E0900-E0999: Tooling and configuration errors

const (
	// E0100: Source text does not match the grammar
	ErrorSyntax = "E0100"

	// E0101: Identifier used without a visible declaration
	ErrorUndeclaredIdentifier = "E0101"

	// E0102: break/continue without a matching target
	ErrorInvalidJumpTarget = "E0102"

	// E0103: Declaration shape the reader cannot express in the source IR
	ErrorInvalidDeclaration = "E0103"

	// E0200: Class, field or function could not be resolved
	ErrorUnresolvedSymbol = "E0200"

	// E0201: Symbol manifest is invalid
	ErrorInvalidManifest = "E0201"

	// E0300: Expression is outside the constant subset
	ErrorNotAConstant = "E0300"

	// E0301: Constructor cannot be evaluated at compile time
	ErrorInvalidConstantConstructor = "E0301"

	// E0302: Static field initializer depends on itself
	ErrorCyclicConstant = "E0302"

	// E0400: Source IR violates a structural invariant
	ErrorMalformedIR = "E0400"

	// E0401: Construct has no lowering
	ErrorUnsupportedConstruct = "E0401"

	// E0900: Configuration file is invalid
	ErrorInvalidConfig = "E0900"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorSyntax:
		return "Source text does not match the grammar"
	case ErrorUndeclaredIdentifier:
		return "Identifier is used but not declared in an enclosing scope"
	case ErrorInvalidJumpTarget:
		return "break or continue has no matching target"
	case ErrorInvalidDeclaration:
		return "Declaration cannot be represented"
	case ErrorUnresolvedSymbol:
		return "Referenced class, field or function does not exist"
	case ErrorInvalidManifest:
		return "Symbol manifest is invalid"
	case ErrorNotAConstant:
		return "Expression is not a compile-time constant"
	case ErrorInvalidConstantConstructor:
		return "Constructor cannot be invoked in a constant context"
	case ErrorCyclicConstant:
		return "Constant initializer refers to itself"
	case ErrorMalformedIR:
		return "Source IR violates a structural invariant"
	case ErrorUnsupportedConstruct:
		return "Construct cannot be lowered"
	case ErrorInvalidConfig:
		return "Configuration is invalid"
	default:
		return "Unknown error code"
	}
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case code >= "E0100" && code < "E0200":
		return "Reader"
	case code >= "E0200" && code < "E0300":
		return "Symbols"
	case code >= "E0300" && code < "E0400":
		return "Constants"
	case code >= "E0400" && code < "E0500":
		return "Lowering"
	case code >= "E0900" && code < "E1000":
		return "Tooling"
	default:
		return "Unknown"
	}
}
