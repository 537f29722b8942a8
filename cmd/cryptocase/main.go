/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

// Package cryptocase implements the cryptocase command line tool. It detects
// encrypted containers in disk images and folders and keeps every step of
// the examination in a case folder.
//     case create  Create a case folder
//     case info    Print a summary of a case
//     scan         Scan a file or folder for encrypted containers
//     memory       Search a memory dump for signatures and key material
//     collect      Record the encryption context of a mounted system
//     search       Full text search over the case
//     report       Export a json or markdown report
//     unlock       Unlock a container (not implemented)
//     crack        Password search (not implemented)
//
// Usage
//
// Create a case and scan an image
//     cryptocase case create --examiner alice cases/4711
//     cryptocase scan --description "laptop" --capture-headers cases/4711 images/laptop.dd
// Search and export
//     cryptocase search cases/4711 bitlocker
//     cryptocase report --format md cases/4711 cases/4711/reports/report.md
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/forensicanalysis/cryptocase/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.Root().ExecuteContext(ctx); err != nil {
		stop()
		cmd.Exit(err)
	}
}
