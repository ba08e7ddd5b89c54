package client

import (
	"github.com/get402/get402-go/address"
	"github.com/get402/get402-go/api"
	"github.com/get402/get402-go/principal"
	"github.com/get402/get402-go/principal/secp256k1/signer"
)

// App is the long-lived billing principal. It is the exclusive owner of its
// private key and the factory for Clients. Its identifier is always derived
// from the key, never set independently.
type App struct {
	signer principal.Signer
	conn   Connection
}

// GenerateApp mints an App with a fresh identity.
func GenerateApp(conn Connection) (*App, error) {
	s, err := signer.Generate()
	if err != nil {
		return nil, err
	}
	return &App{signer: s, conn: conn}, nil
}

// LoadApp restores an App from its exported secret encoding. The identifier
// is re-derived from the decoded key.
func LoadApp(conn Connection, secret string) (*App, error) {
	s, err := signer.Parse(secret)
	if err != nil {
		return nil, err
	}
	return &App{signer: s, conn: conn}, nil
}

func (a *App) Identifier() address.Address {
	return a.signer.Address()
}

// Export returns the App's secret encoding for persistence by the caller.
func (a *App) Export() string {
	return a.signer.Encode()
}

// CreateClient mints a signing-capable Client with a brand new identity. The
// App's own key is never reused for a Client.
func (a *App) CreateClient() (*Client, error) {
	s, err := signer.Generate()
	if err != nil {
		return nil, err
	}
	return &Client{id: s.Address(), signer: s, app: a}, nil
}

// LoadClient restores a signing-capable Client from its exported secret
// encoding.
func (a *App) LoadClient(secret string) (*Client, error) {
	s, err := signer.Parse(secret)
	if err != nil {
		return nil, err
	}
	return &Client{id: s.Address(), signer: s, app: a}, nil
}

// ClientFromIdentifier returns a reference-only Client for an identifier
// minted elsewhere. No validation happens here: the remote account may not
// exist, and that is only discovered when the Client is first used. A Client
// built this way can query but can never sign.
func (a *App) ClientFromIdentifier(id string) *Client {
	return &Client{id: address.Address(id), app: a}
}

// Client is a per-session principal scoped to one App. It holds its own
// signing key when minted by CreateClient, or none when resumed from a bare
// identifier.
type Client struct {
	id address.Address
	// nil for reference-only clients
	signer principal.Signer
	app    *App
}

func (c *Client) Identifier() address.Address {
	return c.id
}

// App returns the owning App.
func (c *Client) App() *App {
	return c.app
}

// Export returns the Client's secret encoding, or ErrNoSigningKey for a
// reference-only Client.
func (c *Client) Export() (string, error) {
	s, err := c.signerOrErr()
	if err != nil {
		return "", err
	}
	return s.Encode(), nil
}

// signerOrErr is the single gate for signing capability. Every authenticated
// operation goes through it so reference-only Clients fail locally, before
// any network I/O.
func (c *Client) signerOrErr() (principal.Signer, error) {
	if c.signer == nil {
		return nil, api.ErrNoSigningKey
	}
	return c.signer, nil
}
