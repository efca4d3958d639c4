package domain

// LinkShape identifies which kind of confirmation link the user followed.
type LinkShape string

const (
	LinkNone      LinkShape = ""
	LinkTokenPair LinkShape = "token_pair"
	LinkTokenHash LinkShape = "token_hash"
	LinkCode      LinkShape = "code"
)

// ConfirmationLink holds the parameters an email confirmation link can carry.
type ConfirmationLink struct {
	AccessToken      string `json:"access_token" form:"access_token" query:"access_token"`
	RefreshToken     string `json:"refresh_token" form:"refresh_token" query:"refresh_token"`
	TokenHash        string `json:"token_hash" form:"token_hash" query:"token_hash"`
	Type             string `json:"type" form:"type" query:"type"`
	Code             string `json:"code" form:"code" query:"code"`
	Error            string `json:"error" form:"error" query:"error"`
	ErrorDescription string `json:"error_description" form:"error_description" query:"error_description"`
}

// Shape returns the link's kind. A link carrying several shapes resolves to
// the first of token pair, token hash, code.
func (l ConfirmationLink) Shape() LinkShape {
	switch {
	case l.AccessToken != "" && l.RefreshToken != "":
		return LinkTokenPair
	case l.TokenHash != "" && l.Type != "":
		return LinkTokenHash
	case l.Code != "":
		return LinkCode
	}
	return LinkNone
}

// Secret returns the one-time value that identifies the link for its shape.
func (l ConfirmationLink) Secret() string {
	switch l.Shape() {
	case LinkTokenPair:
		return l.AccessToken
	case LinkTokenHash:
		return l.TokenHash
	case LinkCode:
		return l.Code
	}
	return ""
}
