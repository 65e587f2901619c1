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


// Package ai defines the embedding and inference contracts the pipeline
// depends on, plus the fallback chain that tries an ordered list of chat
// providers.
//
// Concrete implementations live in subpackages: openai for
// OpenAI-compatible services (including Ollama and other local servers),
// mock for test doubles. Provider handles are constructed once at process
// start and passed explicitly into each component.
package ai
