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


// Package agents implements the research pipeline: the retrieval,
// knowledge, web search, synthesis, and ingestion agents, and the
// orchestrator that ladders them.
//
// The ladder consults progressively more expensive sources: the local
// semantic store, then the model's own knowledge, then live web search,
// stopping at the first source that is good enough. Synthesis always
// runs last for questions and is the only component that streams final
// answer tokens and writes the research cache.
//
// Every agent reports onto a trace.Bus and treats provider failures as
// abstentions: an agent that cannot reach its provider emits an Error
// event and votes no, and the ladder moves on. Nothing an agent does is
// fatal to the pipeline.
package agents
