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


// Package vector provides the semantic store backing retrieval: an
// embedded chromem database holding three collections, one for cached
// research answers, one for ingested documents, and one for scraped web
// content.
//
// The store works exclusively with precomputed embeddings. Callers embed
// queries and documents through the ai package and pass vectors in; the
// store never calls an embedding service. Search results carry a distance
// where lower is better, so a similarity threshold is the maximum
// acceptable distance.
package vector
