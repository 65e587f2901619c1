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


// Package chunker splits arbitrary-length text into bounded, overlapping
// segments for embedding and vector storage.
//
// The splitter tries a hierarchy of separators (paragraph break, line
// break, sentence end, space) and uses the first one present in the text,
// greedily re-merging the resulting parts into chunks that respect the
// configured size limit. Parts too large for any separator are hard-split
// by character windows. Output is deterministic for a given input and
// configuration.
package chunker
