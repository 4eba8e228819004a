package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/avolkov-dev/filevault/internal/client/config"
	"github.com/avolkov-dev/filevault/internal/client/keystore"
	"github.com/avolkov-dev/filevault/internal/client/vault"
)

type App struct {
	config   *config.Config
	client   *vault.Client
	keys     *keystore.FileStore
	session  *vault.Session
	userName string
	reader   *bufio.Reader
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		client: vault.NewClient(c.ServerEndpointAddr, c.RequestTimeout),
		keys:   keystore.NewFileStore(c.KeystorePath),
		reader: bufio.NewReader(os.Stdin),
	}
}

func (a *App) Run(ctx context.Context) {
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

// requireSession reports whether a session exists, telling the user to
// log in when it does not.
func (a *App) requireSession() bool {
	if a.session == nil {
		printlnFn("Not logged in. Use 'login' first.")
		return false
	}
	return true
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return "(" + a.userName + ")"
}
