// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package files

import "strings"

// normalizer maps "smart" Unicode punctuation that word processors and
// browsers like to insert onto plain ASCII equivalents. The transform is
// deterministic and lossy; applying it twice is a no-op.
var normalizer = strings.NewReplacer(
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"„", `"`, // double low-9 quotation mark
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
	"‚", "'", // single low-9 quotation mark
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...", // horizontal ellipsis
	" ", " ", // non-breaking space
)

// NormalizeContent collapses smart punctuation to ASCII. It is applied to
// every write so stored files stay within a restricted character set.
func NormalizeContent(content string) string {
	return normalizer.Replace(content)
}
