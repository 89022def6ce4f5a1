// Package cli implements the docsync command tree.
//
// Commands return errors instead of exiting; ExitCode maps them to the
// process status (0 ok, 1 degraded, 2 configuration, 3 provider or store).
package cli
