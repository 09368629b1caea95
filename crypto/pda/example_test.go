package pda

import "fmt"

func ExampleFind() {
	owner := make([]byte, 32)

	first, bump, err := Find([]byte("tokenlock"), owner, []byte("_"))
	if err != nil {
		panic("derivation failed: " + err.Error())
	}

	second, _, err := Find([]byte("tokenlock"), owner, []byte("_"))
	if err != nil {
		panic("derivation failed: " + err.Error())
	}

	fmt.Println(first == second, IsOnCurve(first[:]), bump > 0)

	// Output: true false true
}
