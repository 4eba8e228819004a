// Package cli provides the interactive vault command-line client.
//
// It wires configuration, the local identity keystore and the vault API
// client into a REPL. Typical flow: register or log in (password plus the
// locally derived one-time code), then upload, download, share and manage
// encrypted files. All cryptography runs locally; the server only ever
// sees ciphertext and wrapped keys.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
