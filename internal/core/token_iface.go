package core

// Grant is a credential for the external media transport.
type Grant struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	Identity string `json:"identity"`
}

type TokenIssuer interface {
	Mint(room, username string) (Grant, error)
}
