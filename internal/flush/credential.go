package flush

import "encoding/base64"

// The baked-in collector credential ships base64-encoded and is decoded
// at call time. This keeps the literal out of casual string dumps and
// nothing more: it is obfuscation, not a confidentiality guarantee.
const encodedCredential = "YWlfcGFuZWxfYW5hbHl0aWNzX3NlY3VyZV9rZXlfMjAyNl9wcm9kX3Yx"

// BakedCredential decodes the shipped collector credential.
func BakedCredential() string {
	decoded, err := base64.StdEncoding.DecodeString(encodedCredential)
	if err != nil {
		return ""
	}
	return string(decoded)
}
