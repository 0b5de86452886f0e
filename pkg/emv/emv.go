// Package emv holds the EMV (Europay, Mastercard, Visa) layer that sits on top
// of ISO 7816: the payment commands (GET PROCESSING OPTIONS, GET DATA), the
// Application File Locator, the FCI / PPSE / record templates returned by
// contactless cards, and the card classification and validation rules.
package emv
