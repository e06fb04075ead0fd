/*
NAME
  list.go

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

// All codecs whose elementary streams can be probed.
// When adding or removing a codec from this list, the IsValid function below must be updated.
const (
	H264 = "h264" // Annex B byte stream.
	H265 = "h265" // Annex B byte stream.
	AV1  = "av1"  // Low overhead bitstream format OBUs.
)

// IsValid checks if a string is a known and valid codec in the right format.
func IsValid(s string) bool {
	switch s {
	case H264, H265, AV1:
		return true
	default:
		return false
	}
}

// IsAnnexB returns true if streams of codec c are NAL unit byte streams
// delimited by start codes.
func IsAnnexB(c string) bool {
	return c == H264 || c == H265
}
