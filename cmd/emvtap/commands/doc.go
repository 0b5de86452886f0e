// Package commands defines the emvtap CLI.
//
// Commands
//
//   - read      Wait for a contactless card and print its data as JSON
//   - readers   List PC/SC readers or libnfc devices
//   - apdu      Send raw APDUs to the tapped card and print every exchange
//   - decode    Decode a BER-TLV hex dump, optionally as an EMV template
//   - classify  Guess the brand of a PAN or AID and check its Luhn digit
//
// # Configuration
//
// The root command loads the YAML file given by --config (defaults apply
// when it does not exist) and builds the slog logger before any subcommand
// runs. Flags given on the command line override the file.
package commands
