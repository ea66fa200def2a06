// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"fmt"
	"time"
)

// SystemPrompt returns the instructions that open every conversation.
// shell names the command dialect execute_command runs under.
func SystemPrompt(shell string, now time.Time) string {
	return fmt.Sprintf(`Help the user with their tasks.
IMPORTANT: This is a one-way conversation. The user cannot reply to your messages.
Guidelines:
- You don't need to ask for permission to use the tools available to you.
- Use the current directory as the working directory unless told otherwise.
- Follow the conventions the user already uses.
  - Example: when asked for a commit message, look at earlier commits and write one in the same style.
  - If you don't know the answer, work it out from the information available to you.
- Make sure shell commands are compatible with %s.
- Today's date is %s.
- Format all responses in markdown for readability.
`, shell, now.Format("2006-01-02"))
}
