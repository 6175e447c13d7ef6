package enums

import "fmt"

// ScanRequestStatus maps to the scan_request_status enum in Postgres.
type ScanRequestStatus string

const (
	ScanRequestStatusPending  ScanRequestStatus = "pending"
	ScanRequestStatusApproved ScanRequestStatus = "approved"
	ScanRequestStatusRejected ScanRequestStatus = "rejected"
)

var validScanRequestStatuses = []ScanRequestStatus{
	ScanRequestStatusPending,
	ScanRequestStatusApproved,
	ScanRequestStatusRejected,
}

// IsValid reports whether the value matches the canonical status enum.
func (s ScanRequestStatus) IsValid() bool {
	for _, candidate := range validScanRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the request can no longer change state.
func (s ScanRequestStatus) IsTerminal() bool {
	return s == ScanRequestStatusApproved || s == ScanRequestStatusRejected
}

// ParseScanRequestStatus converts raw input into ScanRequestStatus.
func ParseScanRequestStatus(value string) (ScanRequestStatus, error) {
	for _, candidate := range validScanRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scan request status %q", value)
}
