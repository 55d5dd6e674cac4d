/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"testing"
)

func TestRectContainsAndEdges(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("edges should be inside: %+v", r)
	}
	if r.Contains(Pt{9.99, 30}) || r.Contains(Pt{50, 70.01}) {
		t.Fatalf("points outside reported inside")
	}
	if c := r.Center(); c != (Pt{60, 45}) {
		t.Fatalf("Center = %+v", c)
	}
}

func TestRectUnionAndInset(t *testing.T) {
	u := R(0, 0, 10, 10).Union(R(5, -5, 10, 10))
	if u != R(0, -5, 15, 15) {
		t.Fatalf("Union = %+v", u)
	}
	in := R(0, 0, 10, 10).Inset(2, 3)
	if in != R(2, 3, 6, 4) {
		t.Fatalf("Inset = %+v", in)
	}
	if tr := R(1, 1, 2, 2).Translate(Pt{3, -1}); tr != R(4, 0, 2, 2) {
		t.Fatalf("Translate = %+v", tr)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0.2, 3) != 3 || Clamp(-1, 0.2, 3) != 0.2 || Clamp(1.5, 0.2, 3) != 1.5 {
		t.Fatalf("clamp bounds wrong")
	}
	if Clamp(math.NaN(), 0.2, 3) != 0.2 {
		t.Fatalf("NaN should clamp to lo")
	}
	if Clamp(math.Inf(1), 0.2, 3) != 3 {
		t.Fatalf("+Inf should clamp to hi")
	}
}

func TestPtFinite(t *testing.T) {
	if !(Pt{1, 2}).Finite() {
		t.Fatalf("finite point reported non-finite")
	}
	if (Pt{math.Inf(-1), 0}).Finite() || (Pt{0, math.NaN()}).Finite() {
		t.Fatalf("non-finite point reported finite")
	}
}

func TestFloatRound(t *testing.T) {
	if got := FloatRound(1.23456, 3); got != 1.235 {
		t.Fatalf("FloatRound = %v", got)
	}
}
