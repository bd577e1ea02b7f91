package images

import (
	"crypto/md5"
	"fmt"

	"gocv.io/x/gocv"
)

// MatChecksum generates a deterministic checksum of a Mat's pixels, shape and
// type. Two masks with the same checksum are identical.
//
// Arguments:
// - mat: The Mat to compute checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string, or "empty".
func MatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	src := mat
	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}

	data, _ := src.DataPtrUint8()
	hash := md5.New()
	fmt.Fprintf(hash, "%dx%d:%d:", src.Cols(), src.Rows(), src.Type())
	hash.Write(data)
	return fmt.Sprintf("%x", hash.Sum(nil))
}
