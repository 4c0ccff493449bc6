/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"os"

	"github.com/tomoncle/mongokit/database"
)

func main() {
	Execute()
}

func fatal(msg string, err error) {
	fmt.Fprintln(os.Stderr, errorLine(msg, err))
	os.Exit(1)
}

// errorLine tags store failures with their class, e.g. "[timeout]".
func errorLine(msg string, err error) string {
	if ok, kind := database.ClassifyError(err); ok {
		return fmt.Sprintf("%s [%s]: %v", msg, kind, err)
	}
	return fmt.Sprintf("%s: %v", msg, err)
}
