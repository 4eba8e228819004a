package cli

import (
	"context"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/avolkov-dev/filevault/internal/filex"
)

const downloadDir = "downloads"

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (a *App) List(ctx context.Context) error {
	if !a.requireSession() {
		return nil
	}

	files, err := a.session.ListFiles(ctx)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	for _, f := range files {
		fmt.Printf("%s  %s (%d bytes, updated %s)\n", f.ID, f.OriginalName, f.Size, f.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *App) ListShared(ctx context.Context) error {
	if !a.requireSession() {
		return nil
	}

	files, err := a.session.ListSharedFiles(ctx)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	for _, f := range files {
		fmt.Printf("%s  %s (owner %s)\n", f.ID, f.OriginalName, f.OwnerID)
	}
	return nil
}

func (a *App) Upload(ctx context.Context) error {
	if !a.requireSession() {
		return nil
	}

	path, err := getSimpleText(a.reader, "Enter path of file to upload", os.Stdout)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	file, err := a.session.EncryptAndUpload(ctx, filepath.Base(path), contentTypeFor(path), data)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	fmt.Printf("Uploaded as %s\n", file.ID)
	return nil
}

func (a *App) Download(ctx context.Context) error {
	if !a.requireSession() {
		return nil
	}

	id, err := getSimpleText(a.reader, "Enter file id to download", os.Stdout)
	if err != nil {
		return err
	}

	plain, err := a.session.DownloadAndDecrypt(ctx, id)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	dir, err := filex.EnsureSubDir(downloadDir)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	path, err := filex.SaveDownload(dir, plain.Name, plain.Data)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	fmt.Printf("Saved to %s\n", path)
	return nil
}

func (a *App) Edit(ctx context.Context) error {
	if !a.requireSession() {
		return nil
	}

	id, err := getSimpleText(a.reader, "Enter file id to edit", os.Stdout)
	if err != nil {
		return err
	}
	path, err := getSimpleText(a.reader, "Enter path of replacement content", os.Stdout)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	if _, err := a.session.Edit(ctx, id, filepath.Base(path), contentTypeFor(path), data); err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	fmt.Println("Updated. Existing shares keep working.")
	return nil
}

func (a *App) Delete(ctx context.Context) error {
	if !a.requireSession() {
		return nil
	}

	id, err := getSimpleText(a.reader, "Enter file id to delete", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.Delete(ctx, id); err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	fmt.Println("Deleted.")
	return nil
}
