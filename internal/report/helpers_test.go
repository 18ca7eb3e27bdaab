// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import "os"

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
