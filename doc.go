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

// Package cryptocase keeps the case record of an examination of encrypted
// containers: registered evidence, detected container candidates,
// artefacts, a timeline and the chain of custody.
//
// The case format
//
// The case format implements the following conventions:
//     - A case is a folder containing a case.json snapshot and the subfolders logs, artifacts and reports.
//     - case.json is the complete case, it is rewritten after every change and validated against case.schema.json when loaded.
//     - Entities reference each other by id, e.g. a container candidate holds the evidence_id of the image it was found in.
//     - Enumerations are stored as lowercase tags, e.g. "bitlocker", "disk_image" or "detection".
//     - Captured container headers are stored in artifacts/headers.sqlar and referenced as <archive>:<name>.
//     - index.sqlite mirrors all entities in a full text search index, it can be rebuilt and is never authoritative.
//
// Structure
//
// An example directory structure for a case:
//     4711/
//     ├── artifacts
//     │   └── headers.sqlar
//     ├── logs
//     ├── reports
//     │   └── report.md
//     ├── case.json
//     └── index.sqlite
package cryptocase
