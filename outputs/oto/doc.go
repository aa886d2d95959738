// SPDX-License-Identifier: EPL-2.0

// Package oto renders the software mix through github.com/ebitengine/oto/v3.
//
// oto permits one context per process, so every Open shares it and must ask
// for the same format. Open waits for the context's ready channel and
// reports backend.ErrDeviceNotReady when the platform device is slow to come
// up. Builds with the headless tag leave it out.
package oto
