package value

// Add, Sub, Mul, and Div implement the small-integer arithmetic contract
// referenced by this invariant: overflow is explicit, never silent
// wraparound, and a non-integer operand yields TypeError rather than a
// panic. These sit in the value package (not a built-in-methods package,
// which is out of this runtime's scope) because they are the only
// operations that need to reason about MinSmallInteger/MaxSmallInteger
// directly.

func checkIntegers(a, b Value) (int64, int64, bool) {
	if GetTag(a) != TagSmallInteger || GetTag(b) != TagSmallInteger {
		return 0, 0, false
	}
	return UntagSigned(a), UntagSigned(b), true
}

// Add returns a+b, or TypeError/Overflow.
func Add(a, b Value) Value {
	x, y, ok := checkIntegers(a, b)
	if !ok {
		return Error(TypeError)
	}
	sum := x + y
	if (x > 0 && y > 0 && sum < x) || (x < 0 && y < 0 && sum > x) || sum > MaxSmallInteger || sum < MinSmallInteger {
		return Error(Overflow)
	}
	return TagInteger(sum)
}

// Sub returns a-b, or TypeError/Overflow.
func Sub(a, b Value) Value {
	x, y, ok := checkIntegers(a, b)
	if !ok {
		return Error(TypeError)
	}
	diff := x - y
	if (y < 0 && diff < x) || (y > 0 && diff > x) || diff > MaxSmallInteger || diff < MinSmallInteger {
		return Error(Overflow)
	}
	return TagInteger(diff)
}

// Mul returns a*b, or TypeError/Overflow.
func Mul(a, b Value) Value {
	x, y, ok := checkIntegers(a, b)
	if !ok {
		return Error(TypeError)
	}
	if x == 0 || y == 0 {
		return TagInteger(0)
	}
	product := x * y
	if product/y != x || product > MaxSmallInteger || product < MinSmallInteger {
		return Error(Overflow)
	}
	return TagInteger(product)
}

// Div returns a/b (truncating), or TypeError/DivideByZero/Overflow.
func Div(a, b Value) Value {
	x, y, ok := checkIntegers(a, b)
	if !ok {
		return Error(TypeError)
	}
	if y == 0 {
		return Error(DivideByZero)
	}
	if x == MinSmallInteger && y == -1 {
		return Error(Overflow)
	}
	return TagInteger(x / y)
}
