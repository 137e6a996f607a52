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

// Package metrics records per-document and per-crawl ingestion outcomes.
//
// A Recorder receives one DocumentOutcome for every document run and one
// CrawlOutcome for every crawled call page. LogRecorder writes them as
// structured log lines; Prometheus exposes them as counters and histograms.
// Multi fans out to several recorders.
package metrics
