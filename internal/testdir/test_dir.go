// Package testdir creates fixture directories for tests
package testdir

import "os"

// CreateTestDir creates test_dir in the working directory:
//
//	test_dir/nested/file2          2 bytes
//	test_dir/nested/subnested/file 5 bytes
//	test_dir/nested/subnested/app.log 1000 bytes
//	test_dir/big.LOG               5000 bytes
//
// The returned function removes it again.
func CreateTestDir() func() {
	if err := os.MkdirAll("test_dir/nested/subnested", os.ModePerm); err != nil {
		panic(err)
	}
	files := map[string][]byte{
		"test_dir/nested/file2":             []byte("go"),
		"test_dir/nested/subnested/file":    []byte("hello"),
		"test_dir/nested/subnested/app.log": make([]byte, 1000),
		"test_dir/big.LOG":                  make([]byte, 5000),
	}
	for path, content := range files {
		if err := os.WriteFile(path, content, 0o644); err != nil {
			panic(err)
		}
	}

	return func() {
		if err := os.RemoveAll("test_dir"); err != nil {
			panic(err)
		}
	}
}
