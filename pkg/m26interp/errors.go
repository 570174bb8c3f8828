// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package m26interp

import "errors"

// Construction-time failures (spec §7a). NewInterpreter fails fast on these
// before consuming any raw data. Apart from these and LoadConfig's decode
// and schema errors, nothing in this package returns an error.
var (
	ErrUnsupportedTriggerFormat = errors.New("[M26INTERP]> unsupported trigger data format, only format 2 is implemented")
	ErrInvalidPlaneID           = errors.New("[M26INTERP]> invalid plane header ID, must be in 0..15")
	ErrDuplicatePlaneID         = errors.New("[M26INTERP]> duplicate plane header ID in active_planes")
	ErrNoActivePlanes           = errors.New("[M26INTERP]> active_planes must not be empty")
)
