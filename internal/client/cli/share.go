package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) Share(ctx context.Context) error {
	if !a.requireSession() {
		return nil
	}

	fileID, err := getSimpleText(a.reader, "Enter file id to share", os.Stdout)
	if err != nil {
		return err
	}

	candidates, err := a.session.ListShareable(ctx, fileID)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("Nobody left to share with.")
		return nil
	}
	for _, u := range candidates {
		fmt.Printf("%s  %s <%s>\n", u.ID, u.Username, u.Email)
	}

	recipientID, err := getSimpleText(a.reader, "Enter recipient user id", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.Share(ctx, fileID, recipientID); err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	fmt.Println("Shared.")
	return nil
}

func (a *App) Unshare(ctx context.Context) error {
	if !a.requireSession() {
		return nil
	}

	fileID, err := getSimpleText(a.reader, "Enter file id", os.Stdout)
	if err != nil {
		return err
	}
	recipientID, err := getSimpleText(a.reader, "Enter recipient user id to revoke", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.Unshare(ctx, fileID, recipientID); err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	fmt.Println("Revoked.")
	return nil
}

func (a *App) Recipients(ctx context.Context) error {
	if !a.requireSession() {
		return nil
	}

	fileID, err := getSimpleText(a.reader, "Enter file id", os.Stdout)
	if err != nil {
		return err
	}

	recipients, err := a.session.ListRecipients(ctx, fileID)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	for _, r := range recipients {
		fmt.Printf("%s (since %s)\n", r.UserID, r.SharedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
