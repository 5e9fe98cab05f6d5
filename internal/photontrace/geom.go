package photontrace

import "math"

// fresnelReflectance computes the Fresnel reflectance for a dielectric interface given
// the cosine of the angle of incidence (wrt the surface normal, always >= 0) and the
// refractive indices of the current (n1) and next (n2) media. incidentAngle and
// transmissionAngle (theta_t) follow spec Section 4.2:
//
//	theta_i = acos(|axis_dir|), theta_t = asin(n1/n2 * sin(theta_i))
//	n2 < n1 and theta_i > asin(n2/n1)  => R = 1 (total internal reflection)
//	otherwise R = 1/2 * (sin^2(ti-tt)/sin^2(ti+tt) + tan^2(ti-tt)/tan^2(ti+tt))
//
// Numerical degeneracy at theta_i exactly the critical angle is folded into TIR
// (spec Section 7), hence the non-strict comparison below. The comparison is
// made on cosines, so an incidence exactly at the critical angle is not pushed
// below it by an acos round trip.
func fresnelReflectance(cosIncident, n1, n2 Real) (r, transmissionAngle Real) {
	cosI := clamp01(math.Abs(cosIncident))
	incidentAngle := math.Acos(cosI)

	if n2 < n1 {
		criticalAngle := math.Asin(n2 / n1)
		if cosI <= math.Cos(criticalAngle) {
			return 1, 0
		}
	}

	// At normal incidence theta_i == theta_t == 0, so sinSum/tanSum below are
	// also 0 and the general formula degenerates to 0/0. Spec Section 4.2's
	// normal-incidence case is exact: no internal reflection, only the
	// deterministic specular loss.
	if incidentAngle <= oneMinusCosZero {
		return specularReflectanceLoss(n1, n2), 0
	}

	transmissionAngle = math.Asin(n1 / n2 * math.Sin(incidentAngle))
	sinSum := math.Sin(incidentAngle + transmissionAngle)
	sinDiff := math.Sin(incidentAngle - transmissionAngle)
	tanSum := math.Tan(incidentAngle + transmissionAngle)
	tanDiff := math.Tan(incidentAngle - transmissionAngle)

	r = 0.5 * ((sinDiff*sinDiff)/(sinSum*sinSum) + (tanDiff*tanDiff)/(tanSum*tanSum))
	return r, transmissionAngle
}

// specularReflectanceLoss returns the fraction of weight lost to specular reflection
// at normal incidence between two media of refractive index n1, n2 (spec Section 4.2).
func specularReflectanceLoss(n1, n2 Real) Real {
	d := (n1 - n2) / (n1 + n2)
	return d * d
}

func clamp01(x Real) Real {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
