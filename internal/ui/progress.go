package ui

import "fmt"

// StatusBadge renders a revocation status as a colored fixed-width badge.
func StatusBadge(status string) string {
	switch status {
	case "confirmed":
		return StyleSuccess.Render("✓ confirmed")
	case "pending":
		return StyleWarning.Render("… pending  ")
	case "reverted":
		return StyleError.Render("✗ reverted ")
	default:
		return StyleMeta.Render("  queued   ")
	}
}

// ProgressLine renders one allowance's live revocation state.
func ProgressLine(label, status, txHash, errMsg string) string {
	line := "  " + StatusBadge(status) + "  " + StyleValue.Render(label)
	if txHash != "" {
		line += "  " + StyleAddress.Render(TruncateAddr(txHash))
	}
	if errMsg != "" && status == "reverted" {
		line += "\n" + StyleMeta.Render(fmt.Sprintf("      └ %s", errMsg))
	}
	return line
}
