// Package pipeline provides a framework for executing post-crawl steps in
// sequence.
//
// Once the survey loop has finished, the frozen crawl state is processed
// through multiple stages: statistics computation, artifact writing and
// history persistence. Each stage is implemented as a Step that receives the
// shared Artifacts value and can add to it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows the survey, mocksurvey and analyze commands to share steps
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context between steps
// 4. Independent artifact files can be written in parallel
//
// Parallel groups run their steps concurrently with errgroup. Steps in a
// group must only read the crawl state; each writes its own output file.
package pipeline
