// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package trace provides the per-query event bus and the typed trace
// events the pipeline emits through it.
//
// Each user query gets its own Bus. Agents push Start/Progress/Result/
// Error events and the synthesis stage pushes answer tokens onto the same
// ordered channel, so a single subscriber can reconstruct both the
// human-readable trace and the raw answer stream in one pass. The full
// event log is retained for persistence alongside the assistant's message.
package trace
