// Package cli is the interactive storefront account client.
//
// It is a thin read-eval-print loop over pkg/authclient: the coordinator
// owns the session and its cookies, the CLI only prompts and prints.
package cli
