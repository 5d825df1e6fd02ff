// Package identifier turns scanned or typed text into book identifiers.
//
// Normalize reduces a single decoded string (barcode payload, keyboard entry)
// to a canonical ISBN-13 when one can be derived. ExtractCandidates pulls
// plausible identifiers out of noisy OCR text and ranks them so a caller can
// auto-select a single hit or ask the operator to choose between several.
//
// Everything here is pure: no storage, no network, same input same output.
package identifier
