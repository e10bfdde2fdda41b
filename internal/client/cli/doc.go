// Package cli provides the interactive certhub command-line client.
//
// Institutions register with a verified institutional address, upload
// templates and CSV batches, and manage issued certificates. Holders list
// and download their own certificates. Anyone can verify a certificate by
// id, enrollment number or QR token, and search the registry.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
