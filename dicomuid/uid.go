// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dicomuid holds transfer syntax UIDs and the implementation
// class/version UID scheme this module emits into file meta information.
package dicomuid

import "fmt"

// Transfer syntax UIDs, see
// http://dicom.nema.org/medical/dicom/current/output/html/part06.html#chapter_A
const (
	ImplicitVRLittleEndian         = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian         = "1.2.840.10008.1.2.1"
	ExplicitVRBigEndian            = "1.2.840.10008.1.2.2"
	DeflatedExplicitVRLittleEndian = "1.2.840.10008.1.2.1.99"
	JPEGBaseline                   = "1.2.840.10008.1.2.4.50"
)

// Root is the UID root this implementation is registered under.
const Root = "1.2.826.0.1.3680043.9.7634"

// Version is the numeric version component of the implementation class UID.
const Version = "1"

// Product names the implementation for ImplementationVersionName.
const Product = "dicom-streams-go"

// ImplementationClassUID returns "<root>.1.<version>".
func ImplementationClassUID() string {
	return fmt.Sprintf("%s.1.%s", Root, Version)
}

// ImplementationVersionName returns "<product>_<version>".
func ImplementationVersionName() string {
	return fmt.Sprintf("%s_%s", Product, Version)
}

// IsDeflated reports whether uid names a deflated transfer syntax.
func IsDeflated(uid string) bool {
	return uid == DeflatedExplicitVRLittleEndian
}

// Context describes the byte-order/VR-encoding pair a transfer syntax UID
// implies.
type Context struct {
	BigEndian  bool
	ExplicitVR bool
	Deflated   bool
}

// knownSyntaxes maps recognized transfer syntax UIDs to their wire context.
var knownSyntaxes = map[string]Context{
	ImplicitVRLittleEndian:         {BigEndian: false, ExplicitVR: false, Deflated: false},
	ExplicitVRLittleEndian:         {BigEndian: false, ExplicitVR: true, Deflated: false},
	ExplicitVRBigEndian:            {BigEndian: true, ExplicitVR: true, Deflated: false},
	DeflatedExplicitVRLittleEndian: {BigEndian: false, ExplicitVR: true, Deflated: true},
}

// Lookup resolves a transfer syntax UID to its wire Context. Unrecognized
// UIDs (e.g. compressed pixel-data syntaxes the core does not decode) fall
// back to explicit VR little endian per PS3.5 Annex A.4, with ok=false so
// callers in strict mode can reject them.
func Lookup(uid string) (ctx Context, ok bool) {
	ctx, ok = knownSyntaxes[uid]
	if !ok {
		return Context{BigEndian: false, ExplicitVR: true, Deflated: false}, false
	}
	return ctx, true
}
