package constraint

import "math/big"

// linearForm is coeffs·vars + constant, all taken mod 2^Width.
type linearForm struct {
	coeffs map[string]*big.Int
	k      *big.Int
}

func newLinearForm() linearForm {
	return linearForm{coeffs: map[string]*big.Int{}, k: big.NewInt(0)}
}

func (f linearForm) clone() linearForm {
	g := newLinearForm()
	for n, c := range f.coeffs {
		g.coeffs[n] = new(big.Int).Set(c)
	}
	g.k = new(big.Int).Set(f.k)
	return g
}

func addForms(a, b linearForm) linearForm {
	r := a.clone()
	for n, c := range b.coeffs {
		if cur, ok := r.coeffs[n]; ok {
			r.coeffs[n] = new(big.Int).Add(cur, c)
		} else {
			r.coeffs[n] = new(big.Int).Set(c)
		}
	}
	r.k = new(big.Int).Add(r.k, b.k)
	return r
}

func negForm(a linearForm) linearForm {
	r := newLinearForm()
	for n, c := range a.coeffs {
		r.coeffs[n] = new(big.Int).Neg(c)
	}
	r.k = new(big.Int).Neg(a.k)
	return r
}

func scaleForm(a linearForm, s *big.Int) linearForm {
	r := newLinearForm()
	for n, c := range a.coeffs {
		r.coeffs[n] = new(big.Int).Mul(c, s)
	}
	r.k = new(big.Int).Mul(a.k, s)
	return r
}

// linearize attempts to rewrite e as a linear combination of Vars plus a
// constant. It returns ok=false for any expression involving a product of
// two non-constant subexpressions, SDiv/SMod, or Ite — the solver falls
// back to bounded search for those.
func linearize(e Expr) (linearForm, bool) {
	switch x := e.(type) {
	case Const:
		f := newLinearForm()
		f.k = new(big.Int).Set(x.Val)
		return f, true
	case Var:
		f := newLinearForm()
		f.coeffs[x.Name] = big.NewInt(1)
		return f, true
	case Bin:
		l, lok := linearize(x.L)
		r, rok := linearize(x.R)
		switch x.Op {
		case OpAdd:
			if lok && rok {
				return addForms(l, r), true
			}
		case OpSub:
			if lok && rok {
				return addForms(l, negForm(r)), true
			}
		case OpMul:
			if lok && len(l.coeffs) == 0 && rok {
				return scaleForm(r, l.k), true
			}
			if rok && len(r.coeffs) == 0 && lok {
				return scaleForm(l, r.k), true
			}
		}
	}
	return linearForm{}, false
}
