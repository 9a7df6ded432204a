/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"fmt"

	"github.com/stashbin/stashbin/pkg/server"
)

func main() {
	s, err := server.NewServer()
	if err != nil {
		fmt.Println("failed to new server, err: ", err.Error())
		return
	}
	s.Start()
}
