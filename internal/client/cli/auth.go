package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/avolkov-dev/filevault/internal/client/keystore"
	"github.com/avolkov-dev/filevault/internal/client/vault"
	"github.com/avolkov-dev/filevault/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for account details, generates key pairs locally and
// creates the account. The identity (including both private keys) is
// saved to the keystore; without it the account's files are unreadable.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := vault.Register(ctx, a.client, userName, email, string(password))
	if err != nil {
		log.Printf("Registration unsuccessful: %s", err.Error())
		return err
	}

	if err := a.keys.Save(id); err != nil {
		log.Printf("Account created but keystore write failed: %s", err.Error())
		return err
	}

	fmt.Println("Success! Now log in.")
	return nil
}

// Login prompts for credentials, loads the stored identity and walks the
// two-step flow: password check, then the one-time code derived locally
// from the server-issued counter.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	id, err := a.keys.Load(userName)
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			log.Printf("No identity for %q in the keystore; register first", userName)
		}
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	session, err := vault.Login(ctx, a.client, id, string(password))
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	// the server assigns the user id at registration time; keep the
	// keystore in sync for identities imported from elsewhere
	if err := a.keys.Save(id); err != nil {
		log.Printf("keystore write failed: %s", err.Error())
	}

	a.session = session
	a.userName = userName
	log.Printf("Login successful")
	return nil
}

// Logout records the signed logout action on the server and drops the
// session. Private keys stay in the keystore.
func (a *App) Logout(ctx context.Context) error {
	if a.session == nil {
		return nil
	}
	if err := a.session.Logout(ctx); err != nil {
		log.Printf("Logout error: %s", err.Error())
		return err
	}
	a.session = nil
	a.userName = ""
	return nil
}
