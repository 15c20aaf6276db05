// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitorui implements the live agent monitor behind
// `drover monitor`. Built on bubbletea (Elm architecture), it shows
// every agent the connected runner knows about in a navigable table,
// with a scrolling event log underneath fed by the runner's status
// update stream.
//
// The [Source] interface decouples the model from the transport:
// [ClientSource] adapts a live [client.Client], while tests drive the
// model with an in-memory fake. When the source also implements
// [Controller], the monitor enables pause/resume/stop keys against
// the selected agent; a read-only source just hides them.
//
// Data flow:
//
//	[agent runner]
//	      | (status updates via client subscription)
//	  [Source] -> channel pump -> [Model] <- bubbletea event loop
//	      |
//	[terminal output]
package monitorui
