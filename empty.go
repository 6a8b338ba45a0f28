package tokenz

type emptyToken struct{}

// Empty is a token that never signals. It is returned wherever a token is
// required but no source exists, so callers never handle nil tokens.
var Empty Token = emptyToken{}

func (emptyToken) HasChanged() bool { return false }

// ActiveCallbacks returns true so consumers do not poll a token that will
// never change.
func (emptyToken) ActiveCallbacks() bool { return true }

func (emptyToken) RegisterCallback(func(any), any) Disposable { return Nop }

// orEmpty substitutes Empty for a nil token.
func orEmpty(t Token) Token {
	if t == nil {
		return Empty
	}
	return t
}
